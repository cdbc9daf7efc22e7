package llmclient

var MapGeminiError = mapGeminiError
