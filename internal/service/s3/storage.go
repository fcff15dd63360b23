// storage.go
package s3

import (
	"fmt"
	"strings"
)

// KeyFromURL извлекает ключ объекта из публичной ссылки
func KeyFromURL(baseURL, url string) (string, error) {
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("url %q does not belong to bucket %q", url, baseURL)
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" {
		return "", fmt.Errorf("url %q has empty key", url)
	}
	return key, nil
}

// JoinURL строит публичную ссылку на объект
func JoinURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}
