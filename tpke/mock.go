package tpke

import (
	"encoding/json"

	"github.com/DE-labtory/cipherbatch"
	"github.com/google/uuid"
)

// MockTpke seals values as plain JSON. Only for tests and local runs
// without key material.
type MockTpke struct{}

type mockEnvelope struct {
	Value uint64 `json:"value"`
	Nonce string `json:"nonce"`
}

func (t *MockTpke) Encrypt(value uint64) (cipherbatch.CipherText, error) {
	return json.Marshal(mockEnvelope{Value: value, Nonce: uuid.New().String()})
}

func (t *MockTpke) Decrypt(ct cipherbatch.CipherText) (uint64, error) {
	env := mockEnvelope{}
	if err := json.Unmarshal(ct, &env); err != nil {
		return 0, err
	}
	return env.Value, nil
}
