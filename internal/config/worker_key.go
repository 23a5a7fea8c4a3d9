package config

type WorkerKeyStruct struct {
	PersistAttemptsQueue    string
	PersistCompletionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAttemptsQueue:    "persist_attempts_queue",
	PersistCompletionsQueue: "persist_completions_queue",
}
