// internal/middleware/validation.go
package middleware

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/storeflow/internal/config"
)

// ValidationInterceptor rejects malformed task payloads before they reach the service
type ValidationInterceptor struct {
	limits      config.ValidationConfig
	maxPageSize int
}

// NewValidationInterceptor creates a new validation interceptor
func NewValidationInterceptor(limits config.ValidationConfig, maxPageSize int) *ValidationInterceptor {
	return &ValidationInterceptor{
		limits:      limits,
		maxPageSize: maxPageSize,
	}
}

// Unary returns a unary server interceptor for request validation
func (v *ValidationInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if msg, ok := req.(*structpb.Struct); ok {
			if err := v.validate(msg, methodName(info.FullMethod)); err != nil {
				return nil, err
			}
		}

		return handler(ctx, req)
	}
}

func (v *ValidationInterceptor) validate(req *structpb.Struct, method string) error {
	fields := req.GetFields()
	var errors []string

	switch method {
	case "CreateTask", "UpdateTask":
		errors = append(errors, v.checkLength(fields, "title", v.limits.MaxTitleLength)...)
		errors = append(errors, v.checkLength(fields, "description", v.limits.MaxDescriptionLength)...)
		errors = append(errors, v.checkLength(fields, "notes", v.limits.MaxNotesLength)...)
	case "ListPool", "ListTasks":
		if limit, ok := fields["limit"]; ok {
			n := limit.GetNumberValue()
			if n < 0 {
				errors = append(errors, "limit cannot be negative")
			} else if v.maxPageSize > 0 && n > float64(v.maxPageSize) {
				errors = append(errors, fmt.Sprintf("limit cannot exceed %d", v.maxPageSize))
			}
		}
		if offset, ok := fields["offset"]; ok && offset.GetNumberValue() < 0 {
			errors = append(errors, "offset cannot be negative")
		}
	}

	switch method {
	case "GetTask", "UpdateTask", "DeleteTask", "TakeTask":
		id := fields["id"].GetStringValue()
		if id == "" {
			errors = append(errors, "task ID is required")
		} else if _, err := uuid.Parse(id); err != nil {
			errors = append(errors, "invalid task ID format")
		}
	}

	if len(errors) > 0 {
		return status.Error(codes.InvalidArgument, strings.Join(errors, "; "))
	}

	return nil
}

func (v *ValidationInterceptor) checkLength(fields map[string]*structpb.Value, name string, limit int) []string {
	value, ok := fields[name]
	if !ok || limit <= 0 {
		return nil
	}
	if utf8.RuneCountInString(value.GetStringValue()) > limit {
		return []string{fmt.Sprintf("%s too long (max %d characters)", name, limit)}
	}
	return nil
}

// methodName strips the service prefix from a full gRPC method name.
func methodName(fullMethod string) string {
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[i+1:]
	}
	return fullMethod
}
