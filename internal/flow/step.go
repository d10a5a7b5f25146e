package flow

import (
	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/model"
)

// step accumulates the output of one Machine.Step call.
type step struct {
	m       *Machine
	in      Input
	user    model.User
	session Session
	lang    string
	out     Output
	err     error
}

func (m *Machine) begin(in Input) *step {
	st := &step{
		m:       m,
		in:      in,
		user:    in.User.Clone(),
		session: in.Session.Clone(),
	}
	st.setLang(in.User.Lang)
	return st
}

func (st *step) setLang(lang string) {
	if lang == "" {
		lang = st.m.tr.Default()
	}
	st.lang = lang
}

func (st *step) t(key string, vars i18n.Vars) string {
	return st.m.tr.T(st.lang, key, vars)
}

func (st *step) amount(n int64) string {
	return st.m.tr.Amount(st.lang, n)
}

// update changes the sender's record. The change is applied to the local view
// right away so later prompts see it.
func (st *step) update(name string, fn func(*model.User) error) {
	if err := fn(&st.user); err != nil {
		if st.err == nil {
			st.err = err
		}
		return
	}
	st.out.Mutations = append(st.out.Mutations, Mutation{UserID: st.user.ID, Name: name, Apply: fn})
}

func (st *step) mutate(userID int64, name string, fn func(*model.User) error) {
	st.out.Mutations = append(st.out.Mutations, Mutation{UserID: userID, Name: name, Apply: fn})
}

func (st *step) emit(e Effect) {
	st.out.Effects = append(st.out.Effects, e)
}

func (st *step) reply(text string, mk *Markup) {
	st.emit(Effect{Kind: EffectReply, Text: text, Markup: mk})
}

func (st *step) edit(text string, mk *Markup) {
	st.emit(Effect{Kind: EffectEdit, Text: text, Markup: mk})
}

func (st *step) editMarkup(mk *Markup) {
	st.emit(Effect{Kind: EffectEditMarkup, Markup: mk})
}

func (st *step) answer(text string, alert bool) {
	st.emit(Effect{Kind: EffectAnswer, Text: text, Alert: alert})
}

func (st *step) notify(to int64, text string) {
	st.emit(Effect{Kind: EffectNotify, To: to, Text: text})
}

func (st *step) forward(to int64, fileID, caption string, mk *Markup) {
	st.emit(Effect{Kind: EffectForward, To: to, FileID: fileID, Text: caption, Markup: mk})
}
