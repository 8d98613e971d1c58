package httprace

import "encoding/base64"

func basicAuthBase64(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
