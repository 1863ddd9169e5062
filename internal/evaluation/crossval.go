package evaluation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/OldStager01/workforce-ml/internal/estimator"
	"github.com/OldStager01/workforce-ml/internal/frame"
)

// CrossValAUC fits a fresh classifier per stratified fold in parallel and
// returns the mean and standard deviation of the fold ROC AUCs. Folds whose
// training or test side lacks a class are left out of the summary.
func CrossValAUC(ctx context.Context, f *frame.Frame, y []int, k int, seed int64, newClassifier func() estimator.Classifier) (*float64, *float64, error) {
	folds := StratifiedKFold(y, k, seed)
	aucs := make([]*float64, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, testIdx := range folds {
		i, testIdx := i, testIdx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trainIdx := Complement(len(y), testIdx)
			yTrain := Subset(y, trainIdx)
			if pos, neg := CountClasses(yTrain); pos == 0 || neg == 0 {
				return nil
			}

			c := newClassifier()
			if err := c.Fit(f.Take(trainIdx), yTrain); err != nil {
				return err
			}
			scores, err := c.PredictProba(f.Take(testIdx))
			if err != nil {
				return err
			}
			aucs[i] = ROCAUC(Subset(y, testIdx), scores)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	mean, std := MeanStd(aucs)
	return mean, std, nil
}
