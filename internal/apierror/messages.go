package apierror

import "errors"

// UserMessage returns a message that is safe to show to an end user.
// Validation errors surface the first field-level message when one exists.
func (e *APIError) UserMessage() string {
	switch e.code {
	case ValidationError:
		if _, msg, ok := e.FirstFieldError(); ok && msg != "" {
			return msg
		}
		if e.message != "" && e.message != defaultMessage(e.code, e.statusCode) {
			return e.message
		}
		return "Please check your input and try again."
	case AuthRequired, SessionExpired:
		return "Your session has expired. Please log in again."
	case AccessDenied:
		return "You don't have permission to perform this action."
	case NotFound:
		return "The requested resource was not found."
	case Conflict:
		return "This conflicts with the current state. Refresh and try again."
	case RateLimited:
		return "Too many requests. Please wait a moment and try again."
	case InternalError:
		return "Something went wrong on our end. Please try again later."
	case NetworkError:
		return "Unable to reach the server. Check your connection and try again."
	case DiscordOAuthError:
		return "Discord authentication failed. Please try again."
	case ChatRoomFull:
		return "This chat room is full."
	case MessageTooLong:
		return "Your message is too long."
	case FileTooLarge:
		return "The file is too large."
	case InvalidFileType:
		return "This file type is not supported."
	}
	if e.statusCode >= 500 {
		return "Something went wrong on our end. Please try again later."
	}
	return "An unexpected error occurred."
}

// As extracts an *APIError from err's chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// UserMessageFor returns the user facing message for any error. Errors that
// are not APIErrors get the generic message.
func UserMessageFor(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := As(err); ok {
		return apiErr.UserMessage()
	}
	return "An unexpected error occurred."
}
