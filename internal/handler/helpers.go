package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tillkeeper/internal/apierror"
	"tillkeeper/internal/apperror"
	"tillkeeper/internal/middleware"
	"tillkeeper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false after writing the error response; the caller must return
// without writing another one.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps service error kinds to status codes. Anything else is a
// store failure and is handed to the ErrorHandler middleware as-is.
func respondError(c *gin.Context, err error) {
	status := 0
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidState):
		status = http.StatusBadRequest
	}
	if status == 0 {
		_ = c.Error(err)
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}

// actorFromContext builds the acting user from JWT claims, if any.
func actorFromContext(c *gin.Context) service.Actor {
	v, ok := c.Get(middleware.ClaimsKey)
	if !ok {
		return service.Actor{}
	}
	claims, ok := v.(*middleware.JWTClaims)
	if !ok || claims == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
}
