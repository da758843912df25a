package lib

import "fmt"

// WrapError wraps err, keeping outer matchable with errors.Is
func WrapError(outer, err error) error {
	return fmt.Errorf("%w: %s", outer, err)
}
