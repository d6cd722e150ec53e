package model

// All returns every model that participates in schema migration.
// Both binaries migrate the same set so the API server and the MCP
// tool server agree on the schema.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Workspace{},
		&WorkspaceMember{},
		&Agent{},
		&AgentRule{},
		&AgentSkill{},
		&AgentMemory{},
		&Team{},
		&TeamAgent{},
		&Deployment{},
		&Conversation{},
		&Message{},
		&Schedule{},
		&FinanceAccount{},
		&FinanceCategory{},
		&Transaction{},
		&KnowledgeCategory{},
		&KnowledgePage{},
		&Channel{},
		&ChannelMessage{},
	}
}
