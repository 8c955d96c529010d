package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	var p Publisher = &Recorder{}
	assert.NoError(t, p.Publish(QuizSubmitted, map[string]string{"quizId": "q1"}))
	assert.NoError(t, p.Publish(QuizSessionExpired, nil))

	assert.Equal(t, []string{QuizSubmitted, QuizSessionExpired}, p.(*Recorder).Types())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(EnrollmentCompleted, nil))
	p.Close()
}

func TestNewAMQPPublisherBadURL(t *testing.T) {
	_, err := NewAMQPPublisher("amqp://127.0.0.1:1/", "test")
	assert.Error(t, err)
}
