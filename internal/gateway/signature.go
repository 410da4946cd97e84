package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func digest(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayment computes the hex HMAC-SHA256 over "orderID|paymentID" with the
// key secret. The gateway sends the same digest after a client-side payment.
func SignPayment(secret, gatewayOrderID, gatewayPaymentID string) string {
	return digest(secret, []byte(gatewayOrderID+"|"+gatewayPaymentID))
}

// VerifyPaymentSignature checks a payment signature in constant time.
func VerifyPaymentSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := SignPayment(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhook computes the hex HMAC-SHA256 over the raw webhook body with
// the webhook secret, which is distinct from the key secret.
func SignWebhook(secret string, body []byte) string {
	return digest(secret, body)
}

// VerifyWebhookSignature checks an inbound webhook signature in constant time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(SignWebhook(secret, body)), []byte(signature))
}
