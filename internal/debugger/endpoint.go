package debugger

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Wire commands understood by the remote debugger.
var (
	CommandNext = []byte("NEXT\n")
	CommandStep = []byte("STEP\n")
	CommandStop = []byte("STOP\n")
)

// Endpoint is the remote debugger address a worker connects to.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(strings.TrimSpace(e.Host), strconv.Itoa(e.Port))
}

func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Host) == "" {
		return errors.New("host is required")
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("port out of range: %d", e.Port)
	}

	return nil
}

func (e Endpoint) String() string {
	return e.Address()
}
