package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromURL(t *testing.T) {
	base := "https://storage.yandexcloud.net/vault/"

	key, err := KeyFromURL(base, "https://storage.yandexcloud.net/vault/vault/org/club/id/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "vault/org/club/id/a.jpg", key)

	_, err = KeyFromURL(base, "https://example.com/vault/a.jpg")
	assert.Error(t, err)

	_, err = KeyFromURL(base, "https://storage.yandexcloud.net/vault/")
	assert.Error(t, err)
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000/b/k/x.pdf", JoinURL("http://minio:9000/b/", "/k/x.pdf"))

	url := JoinURL("http://minio:9000/b", "k/x.pdf")
	key, err := KeyFromURL("http://minio:9000/b", url)
	require.NoError(t, err)
	assert.Equal(t, "k/x.pdf", key)
}

func TestConfigValidateDefaults(t *testing.T) {
	c := Config{AccessKeyID: "id", SecretAccessKey: "secret", Bucket: "vault"}
	require.NoError(t, c.Validate())
	assert.Equal(t, "https://storage.yandexcloud.net", c.Endpoint)
	assert.Equal(t, "ru-central1", c.Region)
	assert.Equal(t, "https://storage.yandexcloud.net/vault", c.PublicBaseURL)

	c = Config{AccessKeyID: "id", SecretAccessKey: "secret"}
	assert.EqualError(t, c.Validate(), "Bucket is required")
}
