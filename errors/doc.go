// Package errors provides the error taxonomy and classifier shared by every
// failure boundary in statekit.
//
// Any raw failure, whether a transport error carrying a numeric status, a
// plain Go error or a value that is not an error at all, is converted into
// exactly one AppError by Normalize. An AppError carries a code from a closed
// set, a message, an optional opaque details payload and the time it was
// created. It is immutable and works with errors.Is, errors.As and
// errors.Unwrap.
//
// # Classification
//
// Each code has a fixed severity (used for logging only) and a fixed
// classification. Only NETWORK_ERROR, TIMEOUT and SERVER_ERROR are
// retryable:
//
//	if errors.ShouldRetry(err) {
//	    time.Sleep(errors.RetryDelay(attempt))
//	}
//
// RetryDelay follows an exponential schedule of 1s, 2s, 4s, 8s capped at 10s.
//
// # Status mapping
//
// Errors implementing StatusCoder are mapped by status:
//
//	0    NETWORK_ERROR
//	401  UNAUTHORIZED
//	403  FORBIDDEN
//	404  NOT_FOUND
//	5xx  SERVER_ERROR
//	4xx  VALIDATION_FAILED
//
// # Handler
//
// Handler is the component other packages depend on. Handle normalizes a
// failure, logs it with slog at a level derived from its severity and
// notifies an optional Observer:
//
//	h := errors.NewHandler(errors.WithLogger(logger), errors.WithLocale("en"))
//	appErr := h.Handle(ctx, err, errors.ErrorContext{Component: "Storage", Action: "get"})
//	fmt.Println(h.UserMessage(appErr))
//
// UserMessage always returns a non-empty, localized message. Locales are
// matched with golang.org/x/text/language; Spanish and English are built in.
package errors
