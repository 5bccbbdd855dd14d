package bridge

import "net/http"

// Response is the webhook reply: a status code plus a small JSON body.
type Response struct {
	Status int
	Body   any
}

type messageBody struct {
	Message string `json:"message"`
}

type challengeBody struct {
	Challenge string `json:"challenge"`
}

func successResponse(message string) Response {
	return Response{Status: http.StatusOK, Body: messageBody{Message: message}}
}

func unauthorizedResponse(message string) Response {
	return Response{Status: http.StatusUnauthorized, Body: messageBody{Message: message}}
}

func unexpectedResponse(message string) Response {
	return Response{Status: http.StatusInternalServerError, Body: messageBody{Message: message}}
}

func challengeResponse(challenge string) Response {
	return Response{Status: http.StatusOK, Body: challengeBody{Challenge: challenge}}
}
