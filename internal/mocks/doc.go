// Package mocks provides shared mock implementations for testing.
//
//	mockLLM := mocks.NewMockLLMClient()
//	mockLLM.RespondWithSequence([]llm.CompletionResponse{
//	    mocks.ToolUse(mocks.Call("c1", "get_reference_list", nil)),
//	    mocks.EndTurn("[]"),
//	})
package mocks
