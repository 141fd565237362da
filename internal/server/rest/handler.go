package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/attachments"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	ctx := c.Request.Context()

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(statusFor(err, http.StatusBadRequest), gin.H{"message": messageFor(err, msgRegisterFields)})
		return
	}

	_, err := s.deps.Users.Register(ctx, req.Name, req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": msgRegistered})
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": msgRegisterFields})
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"message": msgEmailTaken})
	default:
		s.requestLog(c).Error(ctx, "register failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgSomethingWrong})
	}
}

func (s *Server) login(c *gin.Context) {
	ctx := c.Request.Context()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(statusFor(err, http.StatusBadRequest), gin.H{"message": messageFor(err, msgLoginFields)})
		return
	}

	res, err := s.deps.Users.Login(ctx, req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message": msgLoggedIn,
			"token":   res.Token,
			"user":    res.User,
		})
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": msgLoginFields})
	case errors.Is(err, common.ErrorInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgInvalidCredentials})
	default:
		s.requestLog(c).Error(ctx, "login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgSomethingWrong})
	}
}

func (s *Server) createBook(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _ := userIDFrom(c)

	var in models.BookInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(statusFor(err, http.StatusBadRequest), gin.H{"message": messageFor(err, msgInvalidRequestBody)})
		return
	}

	var up *attachments.Upload
	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			s.requestLog(c).Error(ctx, "open multipart file failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"message": msgCouldNotCreate})
			return
		}
		defer f.Close()
		up = &attachments.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// the service reports the missing image after validating the fields
	default:
		c.JSON(statusFor(err, http.StatusBadRequest), gin.H{"message": messageFor(err, msgInvalidRequestBody)})
		return
	}

	book, err := s.deps.Books.Create(ctx, uid, in, up)
	if err != nil {
		status := statusFor(err, http.StatusBadRequest)
		if status == http.StatusBadRequest && !errors.Is(err, common.ErrorValidation) {
			s.requestLog(c).Error(ctx, "create book failed", "user_id", uid, "error", err)
		}
		c.JSON(status, gin.H{"message": messageFor(err, msgCouldNotCreate)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msgBookCreated, "id": book.ID})
}

func (s *Server) listBooks(c *gin.Context) {
	ctx := c.Request.Context()

	list, err := s.deps.Books.List(ctx)
	if err != nil {
		s.requestLog(c).Error(ctx, "list books failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgCouldNotList})
		return
	}

	c.JSON(http.StatusOK, list)
}

// getBook answers with a one-element array, or an empty array when the id
// does not exist.
func (s *Server) getBook(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := bookID(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": msgBookNotFound})
		return
	}

	b, err := s.deps.Books.Get(ctx, id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, []models.Book{*b})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusOK, []models.Book{})
	default:
		s.requestLog(c).Error(ctx, "get book failed", "book_id", id, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"message": msgBookNotFound})
	}
}

func (s *Server) updateBook(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _ := userIDFrom(c)

	id, err := bookID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": msgInvalidBookID})
		return
	}

	var in models.BookInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(statusFor(err, http.StatusBadRequest), gin.H{"message": messageFor(err, msgInvalidRequestBody)})
		return
	}

	if err := s.deps.Books.Update(ctx, uid, id, in); err != nil {
		if !errors.Is(err, common.ErrorValidation) {
			s.requestLog(c).Error(ctx, "update book failed", "book_id", id, "user_id", uid, "error", err)
		}
		c.JSON(statusFor(err, http.StatusBadRequest), gin.H{"message": messageFor(err, msgCouldNotUpdate)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgBookUpdated})
}

func (s *Server) deleteBook(c *gin.Context) {
	ctx := c.Request.Context()
	uid, _ := userIDFrom(c)

	id, err := bookID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgCouldNotDelete})
		return
	}

	if err := s.deps.Books.Delete(ctx, uid, id); err != nil {
		s.requestLog(c).Error(ctx, "delete book failed", "book_id", id, "user_id", uid, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgCouldNotDelete})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgBookDeleted})
}

func (s *Server) serveUpload(c *gin.Context) {
	ctx := c.Request.Context()

	obj, err := s.deps.Files.Open(ctx, c.Param("name"))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": msgFileNotFound})
		return
	case err != nil:
		s.requestLog(c).Error(ctx, "open attachment failed", "name", c.Param("name"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgSomethingWrong})
		return
	}
	defer obj.Body.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, map[string]string{
		"X-Content-Type-Options": "nosniff",
	})
}

func (s *Server) health(c *gin.Context) {
	if err := s.deps.DB.PingContext(c.Request.Context()); err != nil {
		s.requestLog(c).Warn(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": healthStatusUnavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": healthStatusOK})
}

func bookID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
