// Package qrcode renderiza o payload PIX como PNG (API e chat) ou como
// blocos no terminal (payctl).
package qrcode

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// moduleScale é o tamanho, em pixels, de cada módulo do QR no PNG.
const moduleScale = 10

// PNG encodes text as a QR code PNG (error correction level L).
func PNG(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("qrcode: empty payload")
	}
	code, err := qr.Encode(text, qr.L)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	code.Scale = moduleScale
	return code.PNG(), nil
}

// Base64PNG devolve o PNG em base64 puro (sem prefixo data:), o formato
// do campo qr_code.
func Base64PNG(text string) (string, error) {
	png, err := PNG(text)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// Terminal draws the QR code with half blocks on w.
func Terminal(text string, w io.Writer) {
	qrterminal.GenerateHalfBlock(text, qrterminal.L, w)
}
