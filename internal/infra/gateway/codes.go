package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"time"
)

// DefaultSecret assina o checksum quando PAYMENT_API_SECRET não está definido.
const DefaultSecret = "mock_secret_key"

const (
	pixPrefix = "00020101021226880014br.gov.bcb.pix2566qrcodes-pix.example.com/v2/cobv/"
	pixSuffix = "5204000053039865802BR5925ASSISTENTE VIRTUAL DE PAG6009SAO PAULO62070503***6304"

	boletoBank   = "34191"
	boletoMiddle = "01043510047910201500089"

	qrServerURL  = "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data="
	boletoURLFmt = "https://exemplo.com/boleto/%s"
)

// Checksum é um stub de integridade: HMAC-SHA256(secret, id) em base64,
// truncado em 4 caracteres. Não é controle de segurança.
func Checksum(secret, id string) string {
	if secret == "" {
		secret = DefaultSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(id))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))[:4]
}

// PixCode monta o payload PIX "copia e cola" da transação.
func PixCode(id, checksum string) string {
	return pixPrefix + id + pixSuffix + checksum
}

// QRCodeURL aponta para um renderizador público do payload PIX.
func QRCodeURL(pixCode string) string {
	return qrServerURL + url.QueryEscape(pixCode)
}

// Barcode gera a linha do boleto a partir do valor em centavos e do horário.
func Barcode(amount float64, now time.Time) string {
	cents := int64(math.Round(amount * 100))
	return fmt.Sprintf("%s%010d%s%d", boletoBank, cents, boletoMiddle, now.Unix()%10000)
}

// BoletoURL é a URL de retirada do boleto.
func BoletoURL(id string) string {
	return fmt.Sprintf(boletoURLFmt, id)
}
