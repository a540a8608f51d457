package api

// Response is the envelope of every successful JSON response
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Count  *int        `json:"count,omitempty"`
}

// Success wraps data in a success envelope
func Success(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

// SuccessList wraps a list and its length in a success envelope
func SuccessList(data interface{}, count int) Response {
	return Response{Status: "success", Data: data, Count: &count}
}
