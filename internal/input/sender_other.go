//go:build !windows

package input

import "franz/internal/platform"

type unsupportedSender struct{}

// NewSystemSender returns a sender that refuses every batch off Windows.
func NewSystemSender(_ *platform.Binding) Sender {
	return unsupportedSender{}
}

func (unsupportedSender) Send(events []Event) (int, error) {
	return 0, ErrUnsupportedPlatform
}
