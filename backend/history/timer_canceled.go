package history

type TimerCanceledAttributes struct {
}
