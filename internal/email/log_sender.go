package email

import "github.com/dropDatabas3/internalhub/internal/observability/logger"

// LogSender escribe el correo al log en lugar de enviarlo. Se usa en
// desarrollo cuando no hay SMTP configurado; junto con el echo del link en
// la respuesta permite probar el flujo completo sin casilla real.
type LogSender struct{}

func (LogSender) Send(to, subject, htmlBody, textBody string) error {
	logger.L().Info("email (log only)",
		logger.Email(to),
		logger.String("subject", subject),
		logger.String("body", textBody),
	)
	return nil
}
