package application

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/jinford/ppx-backend/internal/module/topics/domain"
)

const (
	// DefaultMinTopicSize はトピックとして扱う最小のドキュメント数
	DefaultMinTopicSize = 2

	// DefaultTopNWords はトピックの代表語数
	DefaultTopNWords = 15

	// DefaultProbThreshold はこの確率未満のドキュメントを結果から除く閾値
	DefaultProbThreshold = 0.3

	maxKMeansIterations = 100
	nameWords           = 4
	softmaxTemperature  = 0.1
	pcaIterations       = 100
)

// ClusterParams は埋め込みクラスタリングによるトピック抽出のパラメータ
type ClusterParams struct {
	MinTopicSize  int
	NrTopics      int
	TopNWords     int
	ProbThreshold float64
	Seed          uint64
}

func (p ClusterParams) withDefaults() ClusterParams {
	if p.MinTopicSize <= 0 {
		p.MinTopicSize = DefaultMinTopicSize
	}
	if p.TopNWords <= 0 {
		p.TopNWords = DefaultTopNWords
	}
	if p.ProbThreshold <= 0 {
		p.ProbThreshold = DefaultProbThreshold
	}
	return p
}

// ClusterInput はクラスタリング対象のチャンク
type ClusterInput struct {
	Text       string
	ResourceID string
	Embedding  []float32
}

// ClusterTopics はチャンクの埋め込みをk-meansでクラスタリングし、c-TF-IDFでトピック名を付けます
// 外れ値トピックと確率が閾値未満のチャンクは結果に含めません
func ClusterTopics(inputs []ClusterInput, params ClusterParams) []domain.DocumentTopic {
	params = params.withDefaults()
	if len(inputs) == 0 {
		return []domain.DocumentTopic{}
	}

	vectors := make([][]float64, len(inputs))
	for i, in := range inputs {
		vectors[i] = normalize(in.Embedding)
	}

	k := params.NrTopics
	if k <= 0 {
		k = int(math.Max(2, math.Round(math.Sqrt(float64(len(inputs))/2))))
	}
	if k > len(inputs) {
		k = len(inputs)
	}

	rng := rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15))
	centroids, labels := kMeans(vectors, k, rng)

	topicIDs := renumberTopics(labels, k, params.MinTopicSize)
	names := topicNames(inputs, labels, topicIDs, params.TopNWords)
	positions := project2D(vectors, rng)

	results := make([]domain.DocumentTopic, 0, len(inputs))
	for i, label := range labels {
		topicID := topicIDs[label]
		if topicID == domain.OutlierTopicID {
			continue
		}
		prob := membership(vectors[i], centroids, label)
		if prob < params.ProbThreshold {
			continue
		}
		results = append(results, domain.DocumentTopic{
			DocID:       i,
			TopicID:     topicID,
			Name:        CleanTopicName(names[topicID]),
			Probability: prob,
			X:           positions[i][0],
			Y:           positions[i][1],
			ResourceID:  inputs[i].ResourceID,
		})
	}
	return results
}

// CleanTopicName は "0_word_word" 形式のトピック名から番号を除いて読みやすくします
func CleanTopicName(name string) string {
	if _, rest, ok := strings.Cut(name, "_"); ok {
		name = rest
	}
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == '_' }), ", ")
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	norm := 0.0
	for i, x := range v {
		out[i] = float64(x)
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	s := 0.0
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

// kMeans は球面k-means（k-means++初期化）でラベルと正規化済みの重心を返します
func kMeans(vectors [][]float64, k int, rng *rand.Rand) ([][]float64, []int) {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(vectors[rng.IntN(len(vectors))]))

	dist := make([]float64, len(vectors))
	for len(centroids) < k {
		total := 0.0
		for i, v := range vectors {
			best := math.Inf(1)
			for _, c := range centroids {
				best = math.Min(best, 1-dot(v, c))
			}
			dist[i] = math.Max(best, 0)
			total += dist[i]
		}
		next := len(centroids) % len(vectors)
		if total > 0 {
			u := rng.Float64() * total
			for i, d := range dist {
				u -= d
				if u <= 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, clone(vectors[next]))
	}

	labels := make([]int, len(vectors))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestSim := 0, math.Inf(-1)
			for c, centroid := range centroids {
				if sim := dot(v, centroid); sim > bestSim {
					best, bestSim = c, sim
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		dim := len(vectors[0])
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			for j := 0; j < dim && j < len(v); j++ {
				sums[labels[i]][j] += v[j]
			}
		}
		for c := range centroids {
			if normalized := normalizeFloat64(sums[c]); normalized != nil {
				centroids[c] = normalized
			}
		}
	}

	return centroids, labels
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}

func normalizeFloat64(v []float64) []float64 {
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// renumberTopics は大きいクラスタから順に0始まりのトピックIDを振ります
// minSize 未満のクラスタは外れ値になります
func renumberTopics(labels []int, k, minSize int) []int {
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}

	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sizes[order[i]] > sizes[order[j]]
	})

	ids := make([]int, k)
	next := 0
	for _, c := range order {
		if sizes[c] == 0 || sizes[c] < minSize {
			ids[c] = domain.OutlierTopicID
			continue
		}
		ids[c] = next
		next++
	}
	return ids
}

// topicNames は c-TF-IDF の上位語からトピック名を作ります
func topicNames(inputs []ClusterInput, labels, topicIDs []int, topN int) map[int]string {
	classCounts := make(map[int]map[string]int)
	classTotals := make(map[int]int)
	termTotals := make(map[string]int)

	for i, in := range inputs {
		topicID := topicIDs[labels[i]]
		if topicID == domain.OutlierTopicID {
			continue
		}
		counts, ok := classCounts[topicID]
		if !ok {
			counts = make(map[string]int)
			classCounts[topicID] = counts
		}
		for _, token := range keywordTokens(in.Text) {
			counts[token]++
			classTotals[topicID]++
			termTotals[token]++
		}
	}

	if len(classCounts) == 0 {
		return map[int]string{}
	}

	words := 0
	for _, n := range classTotals {
		words += n
	}
	avgWords := float64(words) / float64(len(classCounts))

	names := make(map[int]string, len(classCounts))
	for topicID, counts := range classCounts {
		scored := make([]domain.WordWeight, 0, len(counts))
		for term, n := range counts {
			tf := float64(n) / float64(classTotals[topicID])
			idf := math.Log(1 + avgWords/float64(termTotals[term]))
			scored = append(scored, domain.WordWeight{Word: term, Weight: tf * idf})
		}
		sort.Slice(scored, func(i, j int) bool {
			if scored[i].Weight != scored[j].Weight {
				return scored[i].Weight > scored[j].Weight
			}
			return scored[i].Word < scored[j].Word
		})
		if len(scored) > topN {
			scored = scored[:topN]
		}

		parts := []string{fmt.Sprint(topicID)}
		for i := 0; i < len(scored) && i < nameWords; i++ {
			parts = append(parts, scored[i].Word)
		}
		names[topicID] = strings.Join(parts, "_")
	}
	return names
}

// membership は重心との類似度のソフトマックスで所属確率を求めます
func membership(v []float64, centroids [][]float64, label int) float64 {
	sims := make([]float64, len(centroids))
	maxSim := math.Inf(-1)
	for c, centroid := range centroids {
		sims[c] = dot(v, centroid) / softmaxTemperature
		maxSim = math.Max(maxSim, sims[c])
	}
	total := 0.0
	for c := range sims {
		sims[c] = math.Exp(sims[c] - maxSim)
		total += sims[c]
	}
	return sims[label] / total
}

// project2D は主成分分析で2次元座標に射影します
func project2D(vectors [][]float64, rng *rand.Rand) [][2]float64 {
	n := len(vectors)
	dim := len(vectors[0])

	mean := make([]float64, dim)
	for _, v := range vectors {
		for j := 0; j < dim && j < len(v); j++ {
			mean[j] += v[j] / float64(n)
		}
	}
	centered := make([][]float64, n)
	for i, v := range vectors {
		centered[i] = make([]float64, dim)
		for j := 0; j < dim && j < len(v); j++ {
			centered[i][j] = v[j] - mean[j]
		}
	}

	var components [][]float64
	for c := 0; c < 2; c++ {
		component := principalComponent(centered, components, rng)
		components = append(components, component)
	}

	positions := make([][2]float64, n)
	for i, v := range centered {
		for c, component := range components {
			if component != nil {
				positions[i][c] = dot(v, component)
			}
		}
	}
	return positions
}

// principalComponent はべき乗法で既出の成分と直交する最大分散方向を求めます
func principalComponent(data [][]float64, previous [][]float64, rng *rand.Rand) []float64 {
	dim := len(data[0])
	vec := make([]float64, dim)
	for j := range vec {
		vec[j] = rng.Float64() - 0.5
	}

	for iter := 0; iter < pcaIterations; iter++ {
		next := make([]float64, dim)
		for _, row := range data {
			proj := dot(row, vec)
			for j := range next {
				next[j] += proj * row[j]
			}
		}
		for _, p := range previous {
			if p == nil {
				continue
			}
			d := dot(next, p)
			for j := range next {
				next[j] -= d * p[j]
			}
		}
		normalized := normalizeFloat64(next)
		if normalized == nil {
			return nil
		}
		vec = normalized
	}
	return vec
}
