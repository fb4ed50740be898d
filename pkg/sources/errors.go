package sources

import (
	"errors"
	"fmt"

	"github.com/kerbaras/otakulog/pkg/utils"
)

// ErrTransient marks failures worth retrying: network errors, timeouts,
// rate-limit responses and server-side errors.
var ErrTransient = errors.New("transient external error")

// Transient reports whether err should be retried.
func Transient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classify wraps an outbound call error with retryability information.
// Anything that is not an explicit HTTP status is treated as a network-level
// failure and therefore transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var status *utils.StatusError
	if errors.As(err, &status) {
		if status.Code == 429 || status.Code >= 500 {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
