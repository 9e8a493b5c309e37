package serve

import (
	"fmt"
	"net"
)

// Listen 在通配地址上监听双栈 TCP；内核不支持 IPv6 时退回仅 IPv4。
func Listen(port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("[::]:%d", port))
	if err == nil {
		return ln, nil
	}
	ln4, err4 := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err4 != nil {
		return nil, fmt.Errorf("监听端口 %d 失败: %w", port, err4)
	}
	return ln4, nil
}
