//go:build !linux

package gpiohw

// Open returns ErrUnsupported on non-Linux platforms.
func Open(cfg Config) (*Device, error) {
	return nil, ErrUnsupported
}
