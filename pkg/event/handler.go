package event

type Handler func(payload any)

func ErrorHandler(handler func(error)) Handler {
	return func(payload any) {
		err, ok := payload.(error)
		if !ok {
			return
		}
		handler(err)
	}
}
