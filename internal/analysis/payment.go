package analysis

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Payment-specific rules. These run as part of ScanSecurity; they are kept
// in their own file because the heuristics are tied to payment-processing
// call shapes rather than to general code patterns.

// chargeCallMarkers identify calls that create a charge or payment intent.
var chargeCallMarkers = []string{
	"charges.create",
	"paymentIntents.create",
	"createCharge",
	"createPayment",
	"processPayment",
}

// pciFieldMarkers are card-data field names that must never reach a log.
var pciFieldMarkers = []string{
	"cardNumber", "card_number", "creditCard", "credit_card",
	"cvv", "cvc", "securityCode",
}

var loggingCallNames = map[string]bool{
	"log": true, "info": true, "warn": true, "error": true, "debug": true,
	"print": true, "println": true, "Printf": true, "Println": true,
}

var paymentKeyPattern = regexp.MustCompile(`sk_live_[0-9a-zA-Z]{10,}`)

var idempotencyMarkers = []string{
	"idempotencyKey", "idempotency_key", "Idempotency-Key",
}

// checkChargeCall flags charge-creation calls whose amount comes straight
// from the request body, and charge-creation calls made without an
// idempotency key.
func (s *scanner) checkChargeCall(n *tree_sitter.Node) {
	text := n.Utf8Text(s.src)
	if !isChargeCreation(text) {
		return
	}

	if strings.Contains(text, "req.body.amount") || strings.Contains(text, "request.body.amount") {
		s.add(n, FindingUnvalidatedAmount, SeverityCritical,
			"charge amount taken directly from the request body",
			"validate the amount server-side against the order total before charging")
	}

	if !containsAny(text, idempotencyMarkers) {
		s.add(n, FindingMissingIdempotencyKey, SeverityHigh,
			"charge created without an idempotency key",
			"pass an idempotency key so retries cannot double-charge")
	}
}

// checkPCILogging flags logging calls whose arguments mention card-data
// fields.
func (s *scanner) checkPCILogging(n *tree_sitter.Node) {
	callee := n.ChildByFieldName("function")
	if callee == nil {
		return
	}
	calleeText := callee.Utf8Text(s.src)
	if !loggingCallNames[trailingName(calleeText)] && !strings.HasPrefix(calleeText, "console.") {
		return
	}
	if !containsAny(argumentText(n, s.src), pciFieldMarkers) {
		return
	}
	s.add(n, FindingPCIDataLogging, SeverityCritical,
		"card data field appears in a logging call",
		"redact card fields before logging; log only a masked suffix")
}

// checkPaymentKeyLiteral flags live-mode secret keys embedded in source.
// Reports whether the node matched, so the generic secret rule can skip it.
func (s *scanner) checkPaymentKeyLiteral(n *tree_sitter.Node) bool {
	if !paymentKeyPattern.MatchString(n.Utf8Text(s.src)) {
		return false
	}
	s.add(n, FindingHardcodedPaymentKey, SeverityCritical,
		"live payment secret key embedded in source",
		"load payment keys from environment configuration and rotate this key")
	return true
}

func isChargeCreation(text string) bool {
	return containsAny(text, chargeCallMarkers)
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
