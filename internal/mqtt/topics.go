package mqtt

import "fmt"

func TopicTerminalUtterance(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/utterance", prefix)
}

func TopicTerminalOnline(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/online", prefix)
}

func TopicTerminalReply(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/reply/+", prefix)
}

func TopicTerminalResult(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/result/+", prefix)
}

func TopicUtterance(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/utterance", prefix, terminalID)
}

func TopicOutput(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/output", prefix, terminalID)
}

func TopicPrompt(prefix, terminalID, requestID string) string {
	return fmt.Sprintf("%s/terminal/%s/prompt/%s", prefix, terminalID, requestID)
}

func TopicReply(prefix, terminalID, requestID string) string {
	return fmt.Sprintf("%s/terminal/%s/reply/%s", prefix, terminalID, requestID)
}

func TopicInvoke(prefix, terminalID, requestID string) string {
	return fmt.Sprintf("%s/terminal/%s/invoke/%s", prefix, terminalID, requestID)
}

func TopicResult(prefix, terminalID, requestID string) string {
	return fmt.Sprintf("%s/terminal/%s/result/%s", prefix, terminalID, requestID)
}

func TopicOnline(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/online", prefix, terminalID)
}
