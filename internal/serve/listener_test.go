package serve

import (
	"fmt"
	"net"
	"testing"
	"time"
)

func TestListenAcceptsIPv4(t *testing.T) {
	ln, err := Listen(0)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok || addr.Port == 0 {
		t.Fatalf("unexpected listener address: %v", ln.Addr())
	}

	conn, err := net.DialTimeout("tcp4", fmt.Sprintf("127.0.0.1:%d", addr.Port), time.Second)
	if err != nil {
		t.Fatalf("ipv4 dial failed: %v", err)
	}
	_ = conn.Close()
}

func TestListenRejectsBusyPort(t *testing.T) {
	ln, err := Listen(0)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	second, err := Listen(port)
	if err == nil {
		_ = second.Close()
		t.Fatalf("second listener on port %d should fail", port)
	}
}
