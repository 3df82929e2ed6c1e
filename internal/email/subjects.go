package email

const (
	subjectDispatchFmt   = "Proposta %s: preencha os dados dos passageiros"
	subjectPasswordReset = "Sua nova senha de acesso"
)
