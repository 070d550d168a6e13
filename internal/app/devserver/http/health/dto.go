package health

type Input struct{}

type Output struct {
	Body Response
}

// Response reports backend liveness. The agent's connectivity monitor
// probes this endpoint to decide when queued actions can drain.
type Response struct {
	Status  string `json:"status" example:"OK" doc:"Health status of the service"`
	Service string `json:"service" example:"careline-dev" doc:"Identifier of the serving backend"`
	Uptime  string `json:"uptime" example:"42s" doc:"Time since the server started"`
}
