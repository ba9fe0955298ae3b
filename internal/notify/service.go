package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/simao-ai/rural-platform/internal/handoff"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

// SMSSender pings the on-call agent's phone.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

var reasonLabels = map[handoff.Reason]string{
	handoff.ReasonClientRequest:  "cliente pediu atendimento humano",
	handoff.ReasonComplexInquiry: "assunto fora do alcance do assistente",
	handoff.ReasonBotLimitation:  "conversa travada, assistente sem progresso",
	handoff.ReasonTechnicalIssue: "problema técnico na produção",
	handoff.ReasonSalesClosing:   "fechamento de venda",
	handoff.ReasonComplaint:      "reclamação do cliente",
}

// Service fans a handoff alert out to the agent pool: email always, SMS for
// the urgent queue. Implements the escalation engine's Notifier.
type Service struct {
	email     EmailSender
	sms       SMSSender
	poolEmail string
	poolPhone string
	log       *logging.Logger
}

var _ handoff.Notifier = (*Service)(nil)

func NewService(email EmailSender, sms SMSSender, poolEmail, poolPhone string, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		email:     email,
		sms:       sms,
		poolEmail: poolEmail,
		poolPhone: poolPhone,
		log:       log,
	}
}

// NotifyHandoff alerts the pool about a new pending request. Partial
// failures are logged and folded into one error, the escalation itself has
// already happened.
func (s *Service) NotifyHandoff(ctx context.Context, req *handoff.Request) error {
	var errs []string

	if s.email != nil && s.poolEmail != "" {
		msg := EmailMessage{
			To:      s.poolEmail,
			ToName:  "Equipe de atendimento",
			Subject: fmt.Sprintf("[%s] Novo atendimento na fila: %s", strings.ToUpper(string(req.Priority)), req.ContactID),
			Body:    handoffEmailBody(req),
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.log.Error("handoff email failed", "request_id", req.ID, "error", err)
			errs = append(errs, err.Error())
		}
	}

	if s.sms != nil && s.poolPhone != "" && req.Priority == handoff.PriorityUrgent {
		body := fmt.Sprintf("URGENTE: cliente %s aguardando atendimento (%s)", req.ContactID, reasonLabels[req.Reason])
		if err := s.sms.SendSMS(ctx, s.poolPhone, body); err != nil {
			s.log.Error("handoff sms failed", "request_id", req.ID, "error", err)
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: handoff alerts failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func handoffEmailBody(req *handoff.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cliente: %s\n", req.ContactID)
	if req.LeadRef != "" {
		fmt.Fprintf(&b, "Lead: %s\n", req.LeadRef)
	}
	fmt.Fprintf(&b, "Motivo: %s\n", reasonLabels[req.Reason])
	fmt.Fprintf(&b, "Prioridade: %s\n", req.Priority)
	fmt.Fprintf(&b, "Etapa da conversa: %s\n", req.Snapshot.State)
	fmt.Fprintf(&b, "Interações até aqui: %d\n", req.Snapshot.InteractionCount)
	if req.Snapshot.LastMessage != "" {
		fmt.Fprintf(&b, "Última mensagem: %s\n", req.Snapshot.LastMessage)
	}
	if len(req.Snapshot.CollectedData) > 0 {
		b.WriteString("Dados coletados:\n")
		for k, v := range req.Snapshot.CollectedData {
			fmt.Fprintf(&b, "  - %s: %s\n", k, v)
		}
	}
	return b.String()
}
