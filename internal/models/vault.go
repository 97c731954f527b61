package models

import "time"

type VaultDestination string

const (
	VaultDestinationLocal  VaultDestination = "local"
	VaultDestinationRemote VaultDestination = "remote"
)

type VaultCredential struct {
	UserID    string
	PinCipher []byte
	CreatedAt time.Time
}

type VaultVideo struct {
	ID             string
	UserID         string
	Title          string
	Destination    VaultDestination
	StorageLocator string
	MIMEType       string
	SizeBytes      int64
	CreatedAt      time.Time
}
