package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ButyrinIA/menfess/internal/menfess"
	"github.com/ButyrinIA/menfess/internal/models"
	"github.com/ButyrinIA/menfess/internal/view"
)

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", menfess.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.ListApproved(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromPosts(posts))
}

func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var draft models.PostDraft
	if err := decode(r, &draft); err != nil {
		writeError(w, err)
		return
	}
	if draft.AuthorUID == "" {
		draft.AuthorUID = actorFrom(r).UID
	}
	id, err := s.svc.CreatePost(r.Context(), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type postDetail struct {
	Post     *view.Post      `json:"post"`
	Comments []*view.Comment `json:"comments"`
}

func (s *Server) getPostHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	post, err := s.svc.GetPost(r.Context(), id, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	comments, err := s.svc.ListComments(r.Context(), id, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postDetail{Post: view.FromPost(post), Comments: view.FromComments(comments)})
}

func (s *Server) editPostHandler(w http.ResponseWriter, r *http.Request) {
	var edit models.PostEdit
	if err := decode(r, &edit); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.UpdatePost(r.Context(), mux.Vars(r)["id"], edit, actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePost(r.Context(), mux.Vars(r)["id"], actorFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) listCommentsHandler(w http.ResponseWriter, r *http.Request) {
	comments, err := s.svc.ListComments(r.Context(), mux.Vars(r)["id"], actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromComments(comments))
}

func (s *Server) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	var in menfess.CommentInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.svc.AddComment(r.Context(), mux.Vars(r)["id"], in, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type postRef struct {
	PostID string `json:"post_id"`
}

// postID reads the id from the path, or from the body on the legacy
// /like_post and /share_post routes.
func postID(r *http.Request) (string, error) {
	if id := mux.Vars(r)["id"]; id != "" {
		return id, nil
	}
	var ref postRef
	if err := decode(r, &ref); err != nil {
		return "", err
	}
	if ref.PostID == "" {
		return "", fmt.Errorf("%w: post_id is required", menfess.ErrInvalidInput)
	}
	return ref.PostID, nil
}

func (s *Server) likeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.ToggleLike(r.Context(), id, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "likes": res.Likes, "liked": res.Liked})
}

func (s *Server) shareHandler(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	shares, err := s.svc.Share(r.Context(), id, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "shares": shares})
}

func (s *Server) trendingHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.Trending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromPosts(posts))
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListNotifications(r.Context(), actorFrom(r).UID)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) adminHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.AdminList(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.BuildAdminSummary(posts))
}

func (s *Server) statusHandler(apply func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := apply(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) roleHandler(w http.ResponseWriter, r *http.Request) {
	var in menfess.RoleInput
	if err := decode(r, &in); err != nil {
		writeError(w, err)
		return
	}
	assigned, err := s.svc.SetRole(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assigned)
}
