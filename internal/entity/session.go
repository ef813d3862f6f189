package entity

// Session is the product of the requirements handshake: a bearer
// token good for exactly one completion call, plus the proof-of-work
// challenge that must be solved before that call. It is allocated
// fresh per completion; nothing about it is cached or released.
type Session struct {
	Token           string
	ProofRequired   bool
	ProofSeed       string
	ProofDifficulty string
	DeviceID        string
}
