package domain

// NewSuccess builds a SUCCESS response. An answer and at least one source are
// required, and citation indexes must run 1..n in order.
func NewSuccess(queryID, answer string, conf ConfidenceScore, sources []SourceReference, meta *ResponseMetadata) (AgentResponse, error) {
	if answer == "" {
		return AgentResponse{}, ErrMissingAnswer
	}
	if len(sources) == 0 {
		return AgentResponse{}, ErrMissingSources
	}
	for i, s := range sources {
		if s.CitationIndex != i+1 {
			return AgentResponse{}, ErrBadCitationOrder
		}
	}
	return AgentResponse{
		QueryID:    queryID,
		Status:     StatusSuccess,
		Answer:     answer,
		Confidence: &conf,
		Sources:    sources,
		Metadata:   meta,
	}, nil
}

// NewConversational builds a CONVERSATIONAL response. Greetings never carry
// sources or confidence.
func NewConversational(queryID, answer string) (AgentResponse, error) {
	if answer == "" {
		return AgentResponse{}, ErrMissingAnswer
	}
	return AgentResponse{
		QueryID: queryID,
		Status:  StatusConversational,
		Answer:  answer,
	}, nil
}

// NewInsufficientContext builds an INSUFFICIENT_CONTEXT response. The message
// explains what was missing; no answer or sources are attached.
func NewInsufficientContext(queryID, message string, conf *ConfidenceScore, meta *ResponseMetadata) (AgentResponse, error) {
	if message == "" {
		return AgentResponse{}, ErrMissingErrorMessage
	}
	return AgentResponse{
		QueryID:      queryID,
		Status:       StatusInsufficientContext,
		Confidence:   conf,
		Metadata:     meta,
		ErrorMessage: message,
	}, nil
}

// NewErrorResponse builds an ERROR response from a failure message.
func NewErrorResponse(queryID, message string) (AgentResponse, error) {
	if message == "" {
		return AgentResponse{}, ErrMissingErrorMessage
	}
	return AgentResponse{
		QueryID:      queryID,
		Status:       StatusError,
		ErrorMessage: message,
	}, nil
}
