package notifications

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/bytedance/sonic"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	Endpoint    string
	HTTP        *http.Client
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func NewBrevoService(apiKey, senderEmail, senderName string) *BrevoService {
	if apiKey == "" || senderEmail == "" {
		log.Println("⚠️ Email service not configured. Missing API Key or Sender Email.")
		return nil
	}
	return &BrevoService{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		Endpoint:    brevoEndpoint,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *BrevoService) Send(toEmail, toName, subject, htmlContent string) error {
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}

	recipientName := toName
	if recipientName == "" {
		recipientName = toEmail[:strings.Index(toEmail, "@")]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": recipientName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		log.Printf("Brevo API error: Status %d, Body: %s", resp.StatusCode, string(bodyBytes))
		return fmt.Errorf("failed to send email via Brevo: %s", string(bodyBytes))
	}
	return nil
}

// IntegrityAlerter emails operations when a credit balance folds below zero.
// Each (holder, class type, balance) is only reported once per process.
type IntegrityAlerter struct {
	email     *BrevoService
	recipient string

	mu       sync.Mutex
	reported map[string]int
	pending  sync.WaitGroup
}

func NewIntegrityAlerter(email *BrevoService, recipient string) *IntegrityAlerter {
	return &IntegrityAlerter{email: email, recipient: recipient, reported: make(map[string]int)}
}

func (a *IntegrityAlerter) ReportNegativeBalance(b models.CreditBalance) {
	key := fmt.Sprintf("%s:%s:%s", b.Holder.Kind, b.Holder.ID, b.ClassTypeID)
	a.mu.Lock()
	last, seen := a.reported[key]
	if seen && last == b.Balance {
		a.mu.Unlock()
		return
	}
	a.reported[key] = b.Balance
	a.mu.Unlock()

	if a.email == nil || a.recipient == "" {
		log.Printf("Email client not initialized, skipping integrity alert for %s", key)
		return
	}

	subject := fmt.Sprintf("Negative credit balance for %s %s", b.Holder.Kind, b.Holder.ID)
	body := fmt.Sprintf(
		"<h1>Credit ledger integrity alert</h1><p>The %s <b>%s</b> has a balance of <b>%d</b> for class type %s (purchased %d, spent %d).</p><p>The balance has not been changed.</p>",
		b.Holder.Kind, b.Holder.ID, b.Balance, b.ClassTypeID, b.Purchased, b.Spent,
	)

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		if err := a.email.Send(a.recipient, "", subject, body); err != nil {
			log.Printf("🔥 Failed to send integrity alert to %s: %v", a.recipient, err)
			return
		}
		log.Printf("✅ Integrity alert sent to %s", a.recipient)
	}()
}

// Wait blocks until queued alerts have been sent.
func (a *IntegrityAlerter) Wait() {
	a.pending.Wait()
}
