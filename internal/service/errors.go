package service

import "caku/internal/apperr"

var (
	ErrTokenInvalid      = apperr.Validation("Token tidak valid.")
	ErrTokenAlreadyUsed  = apperr.Conflict("Token sudah digunakan.")
	ErrNoActiveToken     = apperr.NotFound("User tidak memiliki token aktif.")
	ErrTransactionAbsent = apperr.NotFound("Transaksi tidak ditemukan. Pastikan ID benar dan milik Anda.")

	ErrPinTooShort     = apperr.Validation("PIN minimal 4 karakter.")
	ErrPinAlreadySet   = apperr.Conflict("PIN vault sudah pernah diset.")
	ErrPinNotSet       = apperr.NotFound("PIN vault belum diset. Ketik: vault pin <pin>")
	ErrInvalidPin      = apperr.Authorization("PIN salah.")
	ErrVaultLocked     = apperr.Authorization("Vault terkunci. Ketik: vault login <pin>")
	ErrSessionExpired  = apperr.Authorization("Sesi vault berakhir. Silakan login ulang.")
	ErrNotAVideo       = apperr.Validation("File bukan video yang didukung (mp4, mov, webm, mkv, 3gp).")
	ErrUploadTooLarge  = apperr.Validation("Ukuran video melebihi batas.")
	ErrRemoteDisabled  = apperr.Validation("Penyimpanan remote tidak tersedia.")
	ErrBadDestination  = apperr.Validation("Tujuan harus local atau remote.")
	ErrEmptyTitle      = apperr.Validation("Judul video wajib diisi.")
	ErrVideoNotFound   = apperr.NotFound("Video tidak ditemukan.")
	ErrInvalidAmount   = apperr.Validation("Format amount tidak valid.")
	ErrInvalidReminder = apperr.Validation("Format: reminder HH:mm (24h)")
	ErrInvalidTarget   = apperr.Validation("Format: target 10000000")
	ErrEmptyWishlist   = apperr.Validation("Format: wishlist add <nama barang>")
)
