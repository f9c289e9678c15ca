package application

import (
	"math/rand/v2"
	"sort"

	"github.com/jinford/ppx-backend/internal/module/topics/domain"
)

const (
	// DefaultNumTopics はLDAのトピック数の既定値
	DefaultNumTopics = 10

	// DefaultPasses はLDAの学習パス数の既定値
	DefaultPasses = 10

	sweepsPerPass         = 10
	topWordsPerTopic      = 10
	minimumTopicProbability = 0.01
)

// LDAParams はLDAの学習パラメータ
type LDAParams struct {
	NumTopics int
	Passes    int
	Alpha     float64
	Beta      float64
	Seed      uint64
}

func (p LDAParams) withDefaults() LDAParams {
	if p.NumTopics <= 0 {
		p.NumTopics = DefaultNumTopics
	}
	if p.Passes <= 0 {
		p.Passes = DefaultPasses
	}
	if p.Alpha <= 0 {
		p.Alpha = 1 / float64(p.NumTopics)
	}
	if p.Beta <= 0 {
		p.Beta = 0.01
	}
	return p
}

// LDAModel は学習済みのLDAモデル
type LDAModel struct {
	vocab     []string
	numTopics int
	alpha     float64
	beta      float64

	// topicWord[k][w] はトピック k に割り当てられた単語 w の数
	topicWord [][]int
	topicSum  []int
	// docTopic[d][k] はドキュメント d でトピック k に割り当てられた単語数
	docTopic [][]int
	docLen   []int
}

// FitLDA は前処理済みのトークン列に対して崩壊型ギブスサンプリングでLDAを学習します
// 同じ入力と Seed からは同じ結果が得られます
func FitLDA(docs [][]string, params LDAParams) *LDAModel {
	params = params.withDefaults()
	rng := rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15))

	index := make(map[string]int)
	var vocab []string
	corpus := make([][]int, len(docs))
	for d, doc := range docs {
		ids := make([]int, len(doc))
		for i, token := range doc {
			id, ok := index[token]
			if !ok {
				id = len(vocab)
				index[token] = id
				vocab = append(vocab, token)
			}
			ids[i] = id
		}
		corpus[d] = ids
	}

	k := params.NumTopics
	m := &LDAModel{
		vocab:     vocab,
		numTopics: k,
		alpha:     params.Alpha,
		beta:      params.Beta,
		topicWord: make([][]int, k),
		topicSum:  make([]int, k),
		docTopic:  make([][]int, len(corpus)),
		docLen:    make([]int, len(corpus)),
	}
	for t := range m.topicWord {
		m.topicWord[t] = make([]int, len(vocab))
	}

	assignments := make([][]int, len(corpus))
	for d, doc := range corpus {
		m.docTopic[d] = make([]int, k)
		m.docLen[d] = len(doc)
		assignments[d] = make([]int, len(doc))
		for i, w := range doc {
			t := rng.IntN(k)
			assignments[d][i] = t
			m.topicWord[t][w]++
			m.topicSum[t]++
			m.docTopic[d][t]++
		}
	}

	v := float64(len(vocab))
	weights := make([]float64, k)
	for sweep := 0; sweep < params.Passes*sweepsPerPass; sweep++ {
		for d, doc := range corpus {
			for i, w := range doc {
				t := assignments[d][i]
				m.topicWord[t][w]--
				m.topicSum[t]--
				m.docTopic[d][t]--

				total := 0.0
				for j := 0; j < k; j++ {
					weights[j] = (float64(m.topicWord[j][w]) + m.beta) /
						(float64(m.topicSum[j]) + v*m.beta) *
						(float64(m.docTopic[d][j]) + m.alpha)
					total += weights[j]
				}

				u := rng.Float64() * total
				t = k - 1
				for j := 0; j < k; j++ {
					u -= weights[j]
					if u <= 0 {
						t = j
						break
					}
				}

				assignments[d][i] = t
				m.topicWord[t][w]++
				m.topicSum[t]++
				m.docTopic[d][t]++
			}
		}
	}

	return m
}

// Topics は各トピックの上位 n 単語と確率を返します
func (m *LDAModel) Topics(n int) []domain.Topic {
	if n <= 0 {
		n = topWordsPerTopic
	}
	v := float64(len(m.vocab))

	topics := make([]domain.Topic, m.numTopics)
	for t := 0; t < m.numTopics; t++ {
		words := make([]domain.WordWeight, len(m.vocab))
		for w, word := range m.vocab {
			words[w] = domain.WordWeight{
				Word:   word,
				Weight: (float64(m.topicWord[t][w]) + m.beta) / (float64(m.topicSum[t]) + v*m.beta),
			}
		}
		sort.SliceStable(words, func(i, j int) bool {
			return words[i].Weight > words[j].Weight
		})
		if len(words) > n {
			words = words[:n]
		}
		topics[t] = domain.Topic{ID: t, Words: words}
	}
	return topics
}

// DocumentTopics はドキュメント d のトピック分布のうち確率が 0.01 以上のものを返します
func (m *LDAModel) DocumentTopics(d int) []domain.TopicWeight {
	denom := float64(m.docLen[d]) + float64(m.numTopics)*m.alpha

	weights := make([]domain.TopicWeight, 0, m.numTopics)
	for t := 0; t < m.numTopics; t++ {
		p := (float64(m.docTopic[d][t]) + m.alpha) / denom
		if p >= minimumTopicProbability {
			weights = append(weights, domain.TopicWeight{TopicID: t, Probability: p})
		}
	}
	return weights
}

// Vocabulary は学習に使った語彙数を返します
func (m *LDAModel) Vocabulary() int {
	return len(m.vocab)
}
