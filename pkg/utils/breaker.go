package utils

import "github.com/sony/gobreaker"

// ExecuteWithBreaker runs fn through the breaker and restores its concrete
// return type, since gobreaker only speaks interface{}.
func ExecuteWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result.(T), nil
}
