package vault

import (
	"fmt"

	"github.com/hashicorp/vault/api"
)

// SecretManager reads connection secrets from a KV v2 mount.
type SecretManager struct {
	client *api.Client
	path   string
}

func NewSecretManager(address, token, path string) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	client.SetToken(token)

	if path == "" {
		path = "secret/data/fuel-control"
	}
	return &SecretManager{client: client, path: path}, nil
}

// GetDatabaseURL returns the "database_url" key of the configured secret.
func (sm *SecretManager) GetDatabaseURL() (string, error) {
	return sm.read("database_url")
}

// GetSendGridAPIKey returns the "sendgrid_api_key" key of the configured secret.
func (sm *SecretManager) GetSendGridAPIKey() (string, error) {
	return sm.read("sendgrid_api_key")
}

func (sm *SecretManager) read(key string) (string, error) {
	secret, err := sm.client.Logical().Read(sm.path)
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", sm.path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault: secret %s not found", sm.path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("vault: secret %s is not a kv v2 entry", sm.path)
	}
	value, ok := data[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("vault: key %q missing in %s", key, sm.path)
	}
	return value, nil
}
