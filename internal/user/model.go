package user

import "time"

// User is a registered wallet owner. The phone number is the session
// identity; Active stays false until the on-chain account contract is
// deployed.
type User struct {
	ID                  string
	FullName            string
	PhoneNumber         string
	Username            string // unique safiri handle, e.g. jane.doe.eth.safiri
	WalletAddress       string
	EncryptedPrivateKey string // custody blob, never the plaintext key
	PIN                 string
	Active              bool
	CreatedAt           time.Time
}
