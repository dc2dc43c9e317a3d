package admin

import (
	"net"

	qrcode "github.com/skip2/go-qrcode"
)

// LANAddress returns the URL other devices on the clinic network open to
// reach this server.
type LANAddress func() string

const lanRouteAddr = "8.8.8.8:80"

// DetectLANURL picks the address of the interface that routes outbound
// traffic. Dialing UDP sends no packets. Falls back to loopback when the
// machine has no route.
func DetectLANURL(scheme, port string) LANAddress {
	return func() string {
		host := "127.0.0.1"
		if conn, err := net.Dial("udp", lanRouteAddr); err == nil {
			if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
				host = addr.IP.String()
			}
			conn.Close()
		}
		return scheme + "://" + net.JoinHostPort(host, port)
	}
}

const qrSize = 256

func encodeQR(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, qrSize)
}
