// Package voucher renders the booking voucher handed to the customer: a QR
// code carrying the sealed order reference.
package voucher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"ms-booking/internal/models"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

// Payload is what the QR code carries once opened.
type Payload struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	BookingDate string    `json:"booking_date"`
	BookingSlot string    `json:"booking_slot"`
	Total       string    `json:"total_ttc"`
	IssuedAt    time.Time `json:"issued_at"`
}

type Generator struct {
	secret []byte
	size   int
}

func NewGenerator(secret string, size int) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	if size <= 0 {
		size = 256
	}
	return &Generator{secret: hashed[:], size: size}
}

// Seal returns the encrypted, URL-safe token for an order.
func (g *Generator) Seal(order models.Order) (string, error) {
	data, err := json.Marshal(Payload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		BookingDate: order.BookingDate,
		BookingSlot: order.BookingSlot,
		Total:       order.Total.StringFixed(2),
		IssuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	gcm, err := g.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal. Tampered or foreign tokens fail
// with models.ErrInvalidVoucher.
func (g *Generator) Open(token string) (Payload, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Payload{}, errors.Wrapf(models.ErrInvalidVoucher, "decode voucher: %v", err)
	}
	gcm, err := g.aead()
	if err != nil {
		return Payload{}, err
	}
	if len(raw) < gcm.NonceSize() {
		return Payload{}, errors.Wrap(models.ErrInvalidVoucher, "voucher too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	data, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return Payload{}, errors.Wrapf(models.ErrInvalidVoucher, "open voucher: %v", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, errors.Wrapf(models.ErrInvalidVoucher, "decode voucher payload: %v", err)
	}
	return p, nil
}

// PNG renders the sealed order reference as a QR code image.
func (g *Generator) PNG(order models.Order) ([]byte, error) {
	token, err := g.Seal(order)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, g.size)
}

func (g *Generator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(g.secret)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
