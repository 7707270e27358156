package service

import (
	"context"
	"errors"

	"laura-rag-go/pkg/llm"
)

// fakeEmbedder 为每段文本返回固定或按文本映射的向量。
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = f.fallback
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

// fakeLLM 记录收到的消息并返回预设回复。
type fakeLLM struct {
	reply    string
	deltas   []string
	err      error
	received []llm.Message
	gen      *llm.GenerationParams
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message, gen *llm.GenerationParams) (llm.Message, error) {
	f.received = messages
	f.gen = gen
	if f.err != nil {
		return llm.Message{}, f.err
	}
	return llm.Message{Role: "assistant", Content: f.reply}, nil
}

func (f *fakeLLM) StreamChatMessages(_ context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) (string, error) {
	f.received = messages
	f.gen = gen
	if f.err != nil {
		return "", f.err
	}
	answer := ""
	for _, d := range f.deltas {
		if err := writer.WriteMessage(1, []byte(d)); err != nil {
			return "", err
		}
		answer += d
	}
	if answer == "" {
		return "", errors.New("no content")
	}
	return answer, nil
}

type recordingWriter struct {
	frames []string
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	w.frames = append(w.frames, string(data))
	return nil
}

// fakeArchiver 记录归档调用，可模拟失败。
type fakeArchiver struct {
	archived []string
	purged   int
	err      error
}

func (a *fakeArchiver) Archive(_ context.Context, docID, name, _ string, _ []byte) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, docID+"/"+name)
	return nil
}

func (a *fakeArchiver) Purge(_ context.Context) error {
	a.purged++
	return a.err
}
