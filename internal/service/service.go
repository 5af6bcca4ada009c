// Package service offers the contact converter as a REST API. Every request except the health
// check names the calling user in the X-User-Id header, and only users on the allow-list get
// through.
package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/convert"
	"gitlab.com/dirk.krummacker/contacts-converter/internal/model"
	"gitlab.com/dirk.krummacker/contacts-converter/internal/store"
	pub "gitlab.com/dirk.krummacker/contacts-converter/pkg/model"
)

// userIdKey is the key under which the authenticated user id is kept in the gin context.
const userIdKey = "userId"

// multipartOverhead is the room granted on top of the file size cap for the multipart envelope.
const multipartOverhead = 64 * 1024

// Store is the persistence the service relies on: the allow-list, the audit log and bug reports.
type Store interface {
	IsOwner(userId int64) bool
	IsAuthorized(userId int64) (bool, error)
	AddUser(user model.User) (bool, error)
	RemoveUser(userId int64) (bool, error)
	CountUsers() (int64, error)
	ListUsers() ([]model.User, error)
	Record(userId int64, operationType string, fileName string, status string)
	RecordBugReport(report model.BugReport) error
	Stats(userId int64) (model.Stats, error)
}

// Options tune the service.
type Options struct {
	MaxFileSize int64
	Encodings   []string
	GinLogging  bool
}

// Service handles all REST API calls.
type Service struct {
	store       Store
	log         *zap.Logger
	maxFileSize int64
	encodings   []string
	ginLogging  bool
}

// New creates the service on top of the given store.
func New(st Store, log *zap.Logger, opts Options) *Service {
	return &Service{
		store:       st,
		log:         log,
		maxFileSize: opts.MaxFileSize,
		encodings:   opts.Encodings,
		ginLogging:  opts.GinLogging,
	}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints.
func (s *Service) SetupHttpRouter() *gin.Engine {
	var router *gin.Engine
	if !s.ginLogging {
		s.log.Info("turning off HTTP request logging")
		router = gin.New()
	} else {
		router = gin.Default()
	}
	router.GET("/health", health)

	authorized := router.Group("/", s.requireAuthorized)
	authorized.POST("/conversions/:direction", s.convertFile)
	authorized.GET("/users/count", s.countUsers)
	authorized.GET("/stats", s.stats)
	authorized.POST("/bugreports", s.reportBug)

	owner := authorized.Group("/", s.requireOwner)
	owner.GET("/users", s.listUsers)
	owner.POST("/users", s.addUser)
	owner.DELETE("/users/:id", s.removeUser)
	return router
}

// health responds as soon as the service is able to answer requests at all.
//
// Example REST API call:
//
//	> curl http://localhost:8080/health
func health(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"message": "ok"})
}

// requireAuthorized lets a request pass only if the user named in the X-User-Id header is on the
// allow-list.
func (s *Service) requireAuthorized(c *gin.Context) {
	userId, err := strconv.ParseInt(c.GetHeader(pub.HeaderUserId), 10, 64)
	if err != nil || userId <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing or invalid user id"})
		return
	}
	ok, err := s.store.IsAuthorized(userId)
	if err != nil {
		s.log.Error("could not check authorization", zap.Int64("user", userId), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied"})
		return
	}
	c.Set(userIdKey, userId)
	c.Next()
}

// requireOwner lets a request pass only if it comes from the owner.
func (s *Service) requireOwner(c *gin.Context) {
	if !s.store.IsOwner(c.GetInt64(userIdKey)) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "owner only"})
		return
	}
	c.Next()
}

// convertFile converts the uploaded file in the direction given by the URL and responds with the
// converted document. The counts of the conversion are sent in the X-Contacts-* headers. If the
// file contains no valid contact at all, the response is a JSON summary with status 422.
//
// Example REST API call:
//
//	> curl http://localhost:8080/conversions/txt_to_vcf --header "X-User-Id: 42" --form "file=@contacts.txt" --output contacts.vcf
func (s *Service) convertFile(c *gin.Context) {
	userId := c.GetInt64(userIdKey)
	direction, ok := LookupDirection(c.Param("direction"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "unknown direction"})
		return
	}
	if direction.OwnerOnly && !s.store.IsOwner(userId) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "owner only"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxFileSize+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": "file too large"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "file missing"})
		return
	}
	if header.Size > s.maxFileSize {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": "file too large"})
		return
	}
	fileName := SanitizeFileName(header.Filename)
	if !direction.Accepts(fileName) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": fmt.Sprintf("unsupported file type, expected one of %s", strings.Join(direction.Extensions, " ")),
		})
		return
	}
	data, err := readFormFile(header)
	if err != nil {
		s.log.Error("could not read upload", zap.String("file", fileName), zap.Error(err))
		s.store.Record(userId, direction.Name, fileName, store.StatusError)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	report, err := convert.Convert(convert.Request{
		Source:    direction.Source,
		Target:    direction.Target,
		Data:      data,
		Encodings: s.encodings,
	})
	if err != nil {
		s.store.Record(userId, direction.Name, fileName, store.StatusError)
		s.abortConversion(c, direction, fileName, err)
		return
	}

	summary := summarize(direction, fileName, report)
	s.log.Info("converted file",
		zap.Int64("user", userId),
		zap.String("direction", direction.Name),
		zap.String("file", fileName),
		zap.String("encoding", report.Encoding),
		zap.Int("total", report.TotalUnits),
		zap.Int("converted", report.Produced),
		zap.Int("skipped", len(report.Skipped)),
		zap.String("outcome", string(report.Outcome)))

	if report.Outcome == convert.OutcomeNoValidRecords {
		s.store.Record(userId, direction.Name, fileName, store.StatusEmpty)
		summary.Message = "no valid contacts found"
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, summary)
		return
	}
	s.store.Record(userId, direction.Name, fileName, store.StatusSuccess)

	c.Header(pub.HeaderTotal, strconv.Itoa(report.TotalUnits))
	c.Header(pub.HeaderConverted, strconv.Itoa(report.Produced))
	c.Header(pub.HeaderSkipped, strconv.Itoa(len(report.Skipped)))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, OutputFileName(fileName, direction.Target)))
	contentType := "text/plain; charset=utf-8"
	if direction.Target == convert.FormatVCard {
		contentType = "text/vcard; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, report.Document)
}

// readFormFile returns the content of an uploaded file.
func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

// abortConversion answers a failed conversion. Problems with the document are the user's to fix
// and answered with BAD REQUEST, everything else is an internal error.
func (s *Service) abortConversion(c *gin.Context, direction Direction, fileName string, err error) {
	var missing *convert.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		c.AbortWithStatusJSON(http.StatusBadRequest, pub.ConversionSummary{
			Direction: direction.Name,
			FileName:  fileName,
			Skipped:   []pub.SkippedUnit{{Index: 0, Reason: string(convert.ReasonMissingRequiredColumn)}},
			Message:   err.Error(),
		})
	case errors.Is(err, convert.ErrUnreadableEncoding),
		errors.Is(err, convert.ErrEmptyInput),
		errors.Is(err, convert.ErrUnsupportedWorkbook):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		s.log.Error("conversion failed",
			zap.String("direction", direction.Name),
			zap.String("file", fileName),
			zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

// summarize turns a conversion report into its public JSON form.
func summarize(direction Direction, fileName string, report *convert.Report) pub.ConversionSummary {
	skipped := make([]pub.SkippedUnit, 0, len(report.Skipped))
	for _, skip := range report.Skipped {
		skipped = append(skipped, pub.SkippedUnit{Index: skip.Index, Reason: string(skip.Reason)})
	}
	return pub.ConversionSummary{
		Direction: direction.Name,
		FileName:  fileName,
		Encoding:  report.Encoding,
		Total:     report.TotalUnits,
		Converted: report.Produced,
		Skipped:   skipped,
	}
}

// countUsers responds with the number of users on the allow-list.
//
// Example REST API call:
//
//	> curl http://localhost:8080/users/count --header "X-User-Id: 42"
func (s *Service) countUsers(c *gin.Context) {
	count, err := s.store.CountUsers()
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, pub.UserCount{Total: count})
}

// stats responds with the number of file operations of the calling user.
//
// Example REST API call:
//
//	> curl http://localhost:8080/stats --header "X-User-Id: 42"
func (s *Service) stats(c *gin.Context) {
	stats, err := s.store.Stats(c.GetInt64(userIdKey))
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, stats)
}

// bugReportRequest is the JSON body of a bug report.
type bugReportRequest struct {
	Username    *string `json:"username"`
	Description string  `json:"description"`
}

// reportBug stores a problem description of the calling user.
//
// Example REST API call:
//
//	> curl http://localhost:8080/bugreports --request "POST" --header "X-User-Id: 42" --header "Content-Type: application/json" --data '{"description": "the upload hangs"}'
func (s *Service) reportBug(c *gin.Context) {
	var request bugReportRequest
	if err := c.BindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	description := strings.TrimSpace(request.Description)
	if description == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "description missing"})
		return
	}
	err := s.store.RecordBugReport(model.BugReport{
		UserId:      c.GetInt64(userIdKey),
		Username:    request.Username,
		Description: description,
	})
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, gin.H{"message": "bug report received"})
}

// listUsers responds with all users on the allow-list.
//
// Example REST API call:
//
//	> curl http://localhost:8080/users --header "X-User-Id: 7614202330"
func (s *Service) listUsers(c *gin.Context) {
	users, err := s.store.ListUsers()
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, users)
}

// addUser puts the user specified in the request's JSON on the allow-list. Adding a user that is
// already there is not an error.
//
// Example REST API call:
//
//	> curl http://localhost:8080/users --request "POST" --header "X-User-Id: 7614202330" --header "Content-Type: application/json" --data '{"id": 42, "username": "erika"}'
func (s *Service) addUser(c *gin.Context) {
	var user model.User
	if err := c.BindJSON(&user); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	if user.UserId <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
		return
	}
	added, err := s.store.AddUser(user)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !added {
		c.IndentedJSON(http.StatusOK, gin.H{"message": "user already authorized"})
		return
	}
	s.log.Info("user added", zap.Int64("user", user.UserId), zap.Int64("by", c.GetInt64(userIdKey)))
	c.IndentedJSON(http.StatusCreated, gin.H{"message": "user added"})
}

// removeUser takes the user whose ID matches the id parameter of the request URL off the
// allow-list. The owner cannot be removed.
//
// Example REST API call:
//
//	> curl http://localhost:8080/users/42 --request "DELETE" --header "X-User-Id: 7614202330"
func (s *Service) removeUser(c *gin.Context) {
	userId, errConv := strconv.ParseInt(c.Param("id"), 10, 64)
	if errConv != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return
	}
	removed, err := s.store.RemoveUser(userId)
	if errors.Is(err, store.ErrOwnerProtected) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !removed {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}
	s.log.Info("user removed", zap.Int64("user", userId), zap.Int64("by", c.GetInt64(userIdKey)))
	c.IndentedJSON(http.StatusOK, gin.H{"message": "user removed"})
}

// internalError logs an unexpected failure and answers with INTERNAL SERVER ERROR.
func (s *Service) internalError(c *gin.Context, err error) {
	s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}
