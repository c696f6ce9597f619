package app

import (
	"review_feed/internal/domain"
)

// startFetches kicks off avatar and photo resolution for a freshly appended row.
func (l *FeedList) startFetches(row domain.ReviewRow) {
	f := &rowFetches{}
	l.fetches[row.ID] = f
	l.fetchAvatar(row.ID, row.AvatarURL, f)
	l.fetchPhotos(row.ID, row.PhotoURLs, f)
}

func (l *FeedList) fetchAvatar(id domain.RowID, url string, f *rowFetches) {
	if url == "" {
		f.avatarDone = true
		return
	}
	f.avatarGen++
	gen := f.avatarGen
	f.avatar = l.images.Fetch(l.ctx, url, func(img domain.Image, err error) {
		if f.avatarGen != gen {
			return
		}
		f.avatar = nil
		f.avatarDone = true
		if err != nil {
			l.log.Debug().Err(err).Str("row", string(id)).Msg("avatar fetch failed")
			return
		}
		l.patch(id, func(r *domain.ReviewRow) bool {
			r.Avatar = img
			return true
		})
	})
}

// fetchPhotos fans out one fetch per URL and patches the row once, after all
// of them completed. Failed photos are dropped; order follows the URLs.
func (l *FeedList) fetchPhotos(id domain.RowID, urls []string, f *rowFetches) {
	if urls == nil {
		f.photosDone = true
		return
	}
	if len(urls) == 0 {
		f.photosDone = true
		l.resolvePhotos(id, []domain.Image{})
		return
	}

	f.batch++
	batch := f.batch
	results := make([]*domain.Image, len(urls))
	pending := len(urls)
	f.photos = make([]domain.Task, 0, len(urls))

	for i, url := range urls {
		t := l.images.Fetch(l.ctx, url, func(img domain.Image, err error) {
			if f.batch != batch {
				return
			}
			if err != nil {
				l.log.Debug().Err(err).Str("row", string(id)).Int("photo", i).Msg("photo fetch failed")
			} else {
				results[i] = &img
			}
			pending--
			if pending > 0 {
				return
			}

			f.photos = nil
			f.photosDone = true
			photos := make([]domain.Image, 0, len(results))
			for _, p := range results {
				if p != nil {
					photos = append(photos, *p)
				}
			}
			l.resolvePhotos(id, photos)
		})
		f.photos = append(f.photos, t)
	}
}

func (l *FeedList) resolvePhotos(id domain.RowID, photos []domain.Image) {
	l.patch(id, func(r *domain.ReviewRow) bool {
		if r.PhotosResolved {
			return false
		}
		r.Photos = photos
		r.PhotosResolved = true
		return true
	})
}

func (l *FeedList) setVisible(id domain.RowID, visible bool) {
	f, ok := l.fetches[id]
	if !ok {
		return
	}
	if !visible {
		f.hidden = true
		f.cancel()
		return
	}
	if !f.hidden {
		return
	}
	f.hidden = false

	i, ok := l.index[id]
	if !ok {
		return
	}
	row := l.rows[i].(domain.ReviewRow)
	if !f.avatarDone && f.avatar == nil {
		l.fetchAvatar(id, row.AvatarURL, f)
	}
	if !f.photosDone && f.photos == nil {
		l.fetchPhotos(id, row.PhotoURLs, f)
	}
}

func (l *FeedList) cancelAllFetches() {
	for _, f := range l.fetches {
		f.cancel()
	}
}

// cancel stops the row's in-flight work. Completions already queued on the
// loop are discarded by the task itself or by the batch check.
func (f *rowFetches) cancel() {
	if f.avatar != nil {
		f.avatar.Cancel()
		f.avatar = nil
		f.avatarGen++
	}
	if f.photos != nil {
		for _, t := range f.photos {
			t.Cancel()
		}
		f.photos = nil
		f.batch++
	}
}
