package entity

// WhatsAppCredentials are the per-company keys for the Flow endpoint
type WhatsAppCredentials struct {
	CompanyID  string `db:"company_id"`
	PrivateKey string `db:"private_key"` // PEM
	Passphrase string `db:"passphrase"`
	AppSecret  string `db:"app_secret"`
}

// EncryptedFlowRequest is the raw body Meta posts to the Flow endpoint
type EncryptedFlowRequest struct {
	EncryptedAESKey   string `json:"encrypted_aes_key"`
	EncryptedFlowData string `json:"encrypted_flow_data"`
	InitialVector     string `json:"initial_vector"`
}
