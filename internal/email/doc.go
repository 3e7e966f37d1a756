// Package email implementa el envío de correos de Digestus: recordatorios
// diarios, digests de equipo y auto-respuestas por formato inválido.
//
// El paquete separa el transporte (Sender, SMTP vía go-mail) de la
// composición (Service, que renderiza asuntos, remitentes y cuerpos a partir
// del dominio). Los workers de la cola consumen Service y deciden reintentos
// con DiagnoseSMTP.
package email
