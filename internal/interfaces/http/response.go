package http

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"

	actorKey = "actor"

	entityApplication = entity.EntityApplication
	entityPayoutBatch = entity.EntityPayoutBatch
	entityComplaint   = entity.EntityComplaint
)

// Response represents a standard JSON response
type Response struct {
	Success bool                `json:"success"`
	Data    interface{}         `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Kind    string              `json:"kind,omitempty"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

// actorMiddleware reads the caller identity established by the upstream
// gateway. Requests without one are refused.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := entity.Actor{
			ID:   strings.TrimSpace(c.GetHeader(headerActorID)),
			Role: entity.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(headerActorRole)))),
		}
		if actor.ID == "" || !actor.Role.IsValid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid actor headers",
				Kind:    apperr.KindUnauthorized.String(),
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}

// statusFor maps a workflow failure kind to an HTTP status code
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindInvalidTransition, apperr.KindInvalidState, apperr.KindConflict, apperr.KindIncompleteRows:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	if kind == "" {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, Response{Success: false, Error: "internal server error"})
		return
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
		Kind:    kind.String(),
		Fields:  apperr.FieldsOf(err),
	})
}

// respondBindError reports a malformed request body. Validator failures are
// listed per field like domain validation failures.
func (h *Handlers) respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{
				Field:   fe.Field(),
				Message: "failed " + fe.Tag() + " check",
			})
		}
		h.respondError(c, apperr.Validation(fields...))
		return
	}

	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "invalid request body: " + err.Error(),
	})
}

// jsonFieldName makes validator report fields by their JSON names
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// pathID parses the :id path parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid id",
		})
		return 0, false
	}
	return id, true
}
