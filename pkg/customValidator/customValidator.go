package customvalidator

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jecitDev/corebank/pkg/repoerrors"
)

// CustomValidator wraps go-playground/validator with the tags entity
// records are checked against before they reach an AuditEngine write
// path: required fields, value ranges, and ISO8601 timestamps.
type CustomValidator struct {
	Validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	valCustom := validator.New()
	valCustom.RegisterCustomTypeFunc(validateTime, time.Time{})
	valCustom.RegisterValidation("daterange", validateDateRange)
	valCustom.RegisterValidation("ISO8601date", validateDateTimeIso8601)
	return &CustomValidator{Validator: valCustom}
}

var iso8601DateRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})([+-])(\d{2}):(\d{2})$`)

func validateDateTimeIso8601(fl validator.FieldLevel) bool {
	date := reflect.ValueOf(fl.Field()).Interface()
	return iso8601DateRegex.MatchString(fmt.Sprintf("%+v", date))
}

func validateTime(field reflect.Value) interface{} {
	if timeVal, ok := field.Interface().(time.Time); ok {
		minTime := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
		if timeVal.After(minTime) {
			return field
		}
	}
	return nil
}

func validateDateRange(fl validator.FieldLevel) bool {
	return fl.Field().String() == "daterange"
}

// Validate runs struct tag validation over i.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.Validator.Struct(i)
}

// ValidateEntity runs Validate and, on failure, translates the
// validator's field errors into a single repoerrors.InvalidInput so
// repository callers don't need to special-case validator.ValidationErrors.
func (cv *CustomValidator) ValidateEntity(entity interface{}) error {
	err := cv.Validate(entity)
	if err == nil {
		return nil
	}
	messages := fieldMessages(err)
	if len(messages) == 0 {
		return repoerrors.Wrap(repoerrors.InvalidInput, "entity failed validation", err)
	}
	return repoerrors.New(repoerrors.InvalidInput, fmt.Sprintf("%v", messages))
}

func fieldMessages(err error) []string {
	castedObject, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	var message []string
	for _, fe := range castedObject {
		switch fe.Tag() {
		case "required":
			message = append(message, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			message = append(message, fmt.Sprintf("%s is not valid email", fe.Field()))
		case "gte":
			message = append(message, fmt.Sprintf("%s value must be greater than or equal to %s", fe.Field(), fe.Param()))
		case "lte":
			message = append(message, fmt.Sprintf("%s value must be lower than or equal to %s", fe.Field(), fe.Param()))
		case "ISO8601date":
			message = append(message, fmt.Sprintf("%s value must be ISO8601 date (YYYY-MM-DDTHH:mm:ssZ)", fe.Field()))
		}
	}
	return message
}

// GrpcErrorHandler is an optional transport-layer convenience for
// services that expose repository operations over gRPC: it translates
// validator.ValidationErrors surfaced by a handler into a gRPC
// InvalidArgument status with a human-readable message.
func GrpcErrorHandler() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if message := fieldMessages(err); len(message) > 0 {
			err = status.Errorf(codes.InvalidArgument, "%+v", message)
		}
		return resp, err
	}
}
