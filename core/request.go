package core

// Request is one user's request for a generated script.
type Request struct {
	MasterPrompt string `mapstructure:"master_prompt"`
	MemoryWindow int    `mapstructure:"memory_window"`
}

const DefaultMemoryWindow = 2

func NewRequest(masterPrompt string, memoryWindow int) *Request {
	return &Request{
		MasterPrompt: masterPrompt,
		MemoryWindow: memoryWindow,
	}
}
