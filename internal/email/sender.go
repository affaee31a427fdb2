// Package email envía los magic links de acceso. El único correo que manda
// el sistema es ese, así que la interfaz es chica a propósito.
package email

// Sender envía un email con contenido HTML y texto plano.
// El destinatario recibe ambas versiones como multipart/alternative.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}
