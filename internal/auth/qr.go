package auth

import (
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// AgentURL builds the websocket URL an agent host dials with its token
func AgentURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/agent"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PairingQR renders content as a PNG QR code of size x size pixels
func PairingQR(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
