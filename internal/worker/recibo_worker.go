package worker

// recibo_worker.go
// Processes receipt jobs from QueueRecibos: renders the payment receipt as PDF
// and emails it to the customer. Failures here never touch the ledger — the
// payment is already committed when the job is enqueued.

import (
	"context"
	"encoding/json"
	"fmt"

	"ctacte/internal/infra"
	"ctacte/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ReciboWorker struct {
	cuentaRepo  repository.CuentaRepository
	clienteRepo repository.ClienteRepository
	mailer      *infra.Mailer
	storagePath string
	comercio    string
}

func NewReciboWorker(cuentaRepo repository.CuentaRepository, clienteRepo repository.ClienteRepository, mailer *infra.Mailer, storagePath, comercio string) *ReciboWorker {
	return &ReciboWorker{
		cuentaRepo:  cuentaRepo,
		clienteRepo: clienteRepo,
		mailer:      mailer,
		storagePath: storagePath,
		comercio:    comercio,
	}
}

// Process generates the PDF receipt and sends it by email.
// A customer without email is not an error: the job completes as a no-op.
func (w *ReciboWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReciboPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("recibo_worker: invalid payload: %w", err)
	}

	movID, err := uuid.Parse(payload.MovimientoID)
	if err != nil {
		return fmt.Errorf("recibo_worker: invalid movimiento_id: %w", err)
	}
	clienteID, err := uuid.Parse(payload.ClienteID)
	if err != nil {
		return fmt.Errorf("recibo_worker: invalid cliente_id: %w", err)
	}

	mov, err := w.cuentaRepo.FindMovimientoByID(ctx, movID)
	if err != nil {
		return fmt.Errorf("recibo_worker: movimiento %s: %w", movID, err)
	}
	cliente, err := w.clienteRepo.FindByID(ctx, clienteID)
	if err != nil {
		return fmt.Errorf("recibo_worker: cliente %s: %w", clienteID, err)
	}

	if cliente.Email == nil || *cliente.Email == "" {
		log.Info().Str("cliente_id", clienteID.String()).Msg("recibo_worker: cliente sin email — skipping")
		return nil
	}

	pdfPath, err := infra.GenerateReciboPDF(mov, cliente, w.comercio, w.storagePath)
	if err != nil {
		return fmt.Errorf("recibo_worker: generate PDF: %w", err)
	}

	subject := fmt.Sprintf("Recibo de pago N° %d — %s", mov.Numero, w.comercio)
	body := fmt.Sprintf(
		"Hola %s,\n\nAdjuntamos el recibo de su pago por $%s.\nSaldo de cuenta corriente: $%s.\n\n%s",
		cliente.Nombre, mov.Monto.StringFixed(2), mov.SaldoPosterior.StringFixed(2), w.comercio,
	)
	if err := w.mailer.SendRecibo(*cliente.Email, subject, body, pdfPath); err != nil {
		return fmt.Errorf("recibo_worker: send email: %w", err)
	}

	log.Info().Str("to", *cliente.Email).Int64("numero", mov.Numero).Msg("recibo_worker: recibo enviado")
	return nil
}
