// Package scan 使用 clamd 对上传的照片做病毒扫描。
package scan

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dutchcoders/go-clamd"
)

// ErrInfected 表示 clamd 判定内容不安全。
var ErrInfected = errors.New("malicious content detected")

// Scanner checks a byte payload.
type Scanner interface {
	Scan(data []byte) error
}

// ClamdScanner 通过 clamd INSTREAM 扫描内容。
type ClamdScanner struct {
	client *clamd.Clamd
}

// NewClamdScanner 返回扫描器；addr 为空时返回 nil，调用方应视为关闭扫描。
// addr 形如 tcp://clamav:3310 或 unix:///var/run/clamd.sock。
func NewClamdScanner(addr string) *ClamdScanner {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	return &ClamdScanner{client: clamd.NewClamd(addr)}
}

// Scan 返回 ErrInfected（包装了病毒名）或扫描本身的错误。
func (s *ClamdScanner) Scan(data []byte) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := s.client.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("clamd scan stream: %w", err)
	}

	var verdict error
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			verdict = fmt.Errorf("%w: %s", ErrInfected, result.Description)
		default:
			if verdict == nil {
				verdict = fmt.Errorf("clamd returned %s: %s", result.Status, result.Description)
			}
		}
	}
	return verdict
}
