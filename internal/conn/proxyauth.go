package conn

import "encoding/base64"

// basicAuthEncode base64-encodes "user:pass" for a Proxy-Authorization
// header, mirroring net/http's unexported basicAuth helper.
func basicAuthEncode(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
