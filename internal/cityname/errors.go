package cityname

import (
	"errors"
	"fmt"
)

// ErrNoCity is returned when no address segment yields a plausible city.
var ErrNoCity = errors.New("could not extract city")

// InvalidNameError is returned when a normalized candidate fails validation.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid city name %q", e.Name)
}
