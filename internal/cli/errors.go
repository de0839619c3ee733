package cli

import (
	"context"
	"errors"
	"io"

	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Process exit codes, following sysexits(3) where one fits
const (
	exitOK          = 0
	exitFailure     = 1
	exitDataErr     = 65
	exitNoInput     = 66
	exitUnavailable = 69
	exitSoftware    = 70
	exitCantCreate  = 73
	exitTempFail    = 75
	exitInterrupted = 130
)

// Error codes for failures that do not come from the store
const (
	errorCodeCommandFailed = "COMMAND_FAILED"
	errorCodeCanceled      = "CANCELED"
)

// ErrorResponse is the structured form of a failed command, written to stderr
type ErrorResponse struct {
	Status    string                 `json:"status" yaml:"status"`
	ErrorCode string                 `json:"error_code" yaml:"error_code"`
	GRPCCode  string                 `json:"grpc_code,omitempty" yaml:"grpc_code,omitempty"`
	Message   string                 `json:"message" yaml:"message"`
	Field     string                 `json:"field,omitempty" yaml:"field,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if canceled(err) {
		return exitInterrupted
	}
	if !storeerrors.IsStoreError(err) {
		return exitFailure
	}

	switch status.Code(err) {
	case codes.InvalidArgument:
		return exitDataErr
	case codes.NotFound:
		return exitNoInput
	case codes.AlreadyExists:
		return exitCantCreate
	case codes.Aborted:
		return exitTempFail
	case codes.Unavailable:
		return exitUnavailable
	default:
		return exitSoftware
	}
}

// newErrorResponse builds the structured form of err
func newErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCodeCommandFailed,
		Message:   err.Error(),
	}
	if canceled(err) {
		resp.ErrorCode = errorCodeCanceled
		return resp
	}

	var se *storeerrors.StoreError
	if !errors.As(err, &se) {
		return resp
	}
	st, _ := status.FromError(err)
	resp.ErrorCode = storeerrors.GetCode(err).String()
	resp.GRPCCode = st.Code().String()
	resp.Field = storeerrors.Field(err)
	if len(se.Details) > 0 {
		resp.Details = se.Details
	}
	return resp
}

// writeError reports err on w in the selected output format, falling back to
// json when the format itself was the problem.
func writeError(w io.Writer, format string, logger *zap.Logger, err error) int {
	code := exitCode(err)
	resp := newErrorResponse(err)

	if logger != nil {
		logger.Debug("command failed",
			zap.Int("exit_code", code),
			zap.String("error_code", resp.ErrorCode),
			zap.String("grpc_code", resp.GRPCCode),
			zap.String("message", resp.Message),
		)
	}

	if validateOutput(format) != nil {
		format = outputJSON
	}
	_ = render(w, format, resp)
	return code
}
