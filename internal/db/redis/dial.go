package redis

import (
	"net"
	"time"
)

func dialer(timeout time.Duration) net.Dialer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return net.Dialer{Timeout: timeout, KeepAlive: time.Minute}
}
