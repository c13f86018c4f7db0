package factory

import (
	"testing"
	"time"

	"github.com/anime-shed/brand-inspector-go/internal/config"
	"github.com/anime-shed/brand-inspector-go/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		UploadDir:          t.TempDir(),
		ImageFetchTimeout:  time.Second,
		ProcessedWidth:     64,
		AzureAccountName:   "account",
		AzureAccountKey:    "not base64!",
		AzureContainer:     "uploads",
		MinioEndpoint:      "localhost:9000",
		MinioAccessKey:     "access",
		MinioSecretKey:     "secret",
		MinioBucket:        "uploads",
		HTTPStorageBaseURL: "http://images.example.com",
	}
}

func TestCreateStorage(t *testing.T) {
	f := NewStorageFactory(testConfig(t))

	local, err := f.CreateStorage(LocalStorage)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, local)

	minioStore, err := f.CreateStorage(MinioStorage)
	require.NoError(t, err)
	assert.IsType(t, &storage.MinioStore{}, minioStore)

	httpStore, err := f.CreateStorage(HTTPStorage)
	require.NoError(t, err)
	assert.IsType(t, &storage.HTTPStore{}, httpStore)

	// the account key must be base64
	_, err = f.CreateStorage(AzureStorage)
	assert.Error(t, err)

	_, err = f.CreateStorage(StorageType("ftp"))
	assert.EqualError(t, err, "unsupported storage type: ftp")
}

func TestComponentFactory(t *testing.T) {
	cf := NewComponentFactory(testConfig(t))
	require.NotNil(t, cf.StorageFactory)
	assert.NotNil(t, cf.ProcessorFactory.CreateProcessor())
}
