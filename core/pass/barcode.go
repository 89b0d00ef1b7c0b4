package pass

type BarcodeFormat string

const (
	BarcodeFormatCode128 BarcodeFormat = "PKBarcodeFormatCode128"
	BarcodeFormatQR      BarcodeFormat = "PKBarcodeFormatQR"
	BarcodeFormatAztec   BarcodeFormat = "PKBarcodeFormatAztec"
	BarcodeFormatPDF417  BarcodeFormat = "PKBarcodeFormatPDF417"
)

const DefaultMessageEncoding = "iso-8859-1"

func (f BarcodeFormat) Valid() bool {
	switch f {
	case BarcodeFormatCode128, BarcodeFormatQR, BarcodeFormatAztec, BarcodeFormatPDF417:
		return true
	default:
		return false
	}
}

type Barcode struct {
	Format          BarcodeFormat `json:"format"`
	Message         string        `json:"message"`
	MessageEncoding string        `json:"messageEncoding"`
	AltText         string        `json:"altText,omitempty"`
}

// NewBarcode uses the default message encoding.
func NewBarcode(format BarcodeFormat, message string) Barcode {
	return Barcode{Format: format, Message: message, MessageEncoding: DefaultMessageEncoding}
}
